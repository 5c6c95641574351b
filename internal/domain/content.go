package domain

// Content is a role-tagged message payload exchanged with the pipeline.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is one fragment of a content payload.
type Part struct {
	Text string `json:"text"`
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// UserText wraps a plain message string as user-authored content.
func UserText(text string) Content {
	return Content{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// ModelText wraps a plain message string as model-authored content.
func ModelText(text string) Content {
	return Content{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// Text returns the text of the first part, or empty when there is none.
func (c Content) Text() string {
	if len(c.Parts) == 0 {
		return ""
	}
	return c.Parts[0].Text
}
