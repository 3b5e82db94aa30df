package response

import "github.com/gin-gonic/gin"

// Client-facing error texts.
const (
	MsgInvalidSession   = "Invalid session."
	MsgInvalidPayload   = "Invalid request payload."
	MsgFileRequired     = "File is required."
	MsgUnsupportedFile  = "Only .docx files are supported."
	MsgEmptyFile        = "Uploaded file is empty."
	MsgFileTooLarge     = "File is too large."
	MsgUnreadableFile   = "Unable to process the .docx file."
	MsgInternal         = "Internal server error."
	MsgTranscriptAbsent = "Transcript is disabled."
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorResponse{Error: message})
}
