package model

import "time"

// Session is the server-held state of one uploaded template.
type Session struct {
	ID           string            `json:"id"`
	Document     []byte            `json:"document"`
	Filename     string            `json:"filename"`
	Placeholders []string          `json:"placeholders"`
	Values       map[string]string `json:"values"`
	FillOrder    []string          `json:"fill_order"`
	Pending      string            `json:"pending,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SetValue records a value. A name keeps its original fill position when it
// is assigned again.
func (s *Session) SetValue(name, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	if _, exists := s.Values[name]; !exists {
		s.FillOrder = append(s.FillOrder, name)
	}
	s.Values[name] = value
}

// Filled lists value keys in fill order, unknown fill-all keys included.
func (s *Session) Filled() []string {
	return append(make([]string, 0, len(s.FillOrder)), s.FillOrder...)
}

// Remaining lists placeholders without a value, in discovery order.
func (s *Session) Remaining() []string {
	var out []string
	for _, name := range s.Placeholders {
		if _, ok := s.Values[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *Session) Done() bool {
	return len(s.Remaining()) == 0
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Document = append([]byte(nil), s.Document...)
	c.Placeholders = append([]string(nil), s.Placeholders...)
	c.FillOrder = append([]string(nil), s.FillOrder...)
	if s.Values != nil {
		c.Values = make(map[string]string, len(s.Values))
		for k, v := range s.Values {
			c.Values[k] = v
		}
	}
	return &c
}
