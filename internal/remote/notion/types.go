package notion

import (
	"fmt"
	"time"
)

// ErrorResponse is the error body returned by the API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx API response with a machine-readable code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d, %s): %s", e.Status, e.Code, e.Message)
}

// NotFound reports whether the error refers to a missing object.
func (e *APIError) NotFound() bool {
	return e.Status == 404 || e.Code == "object_not_found"
}

// Page is a remote page object. Every todo and every daily log is one
// page in its respective database.
type Page struct {
	ID             string              `json:"id"`
	Archived       bool                `json:"archived"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]Property `json:"properties"`
}

// Property is a single page property value. Exactly one of the typed
// fields is set, matching Type.
type Property struct {
	Type     string        `json:"type,omitempty"`
	Title    []RichText    `json:"title,omitempty"`
	RichText []RichText    `json:"rich_text,omitempty"`
	Select   *SelectOption `json:"select,omitempty"`
	Date     *DateValue    `json:"date,omitempty"`
	Number   *float64      `json:"number,omitempty"`
}

// RichText is one span of formatted text.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// TextContent is the raw content of a text span.
type TextContent struct {
	Content string `json:"content"`
}

// SelectOption is a select property value.
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue is a date property value. Start is either a plain date
// (YYYY-MM-DD) or an RFC3339 timestamp.
type DateValue struct {
	Start string `json:"start"`
}

// ParentRef identifies the database a created page belongs to.
type ParentRef struct {
	DatabaseID string `json:"database_id"`
}

// CreatePageRequest is the body of POST /v1/pages.
type CreatePageRequest struct {
	Parent     ParentRef           `json:"parent"`
	Properties map[string]Property `json:"properties"`
}

// UpdatePageRequest is the body of PATCH /v1/pages/{id}.
type UpdatePageRequest struct {
	Properties map[string]Property `json:"properties,omitempty"`
	Archived   *bool               `json:"archived,omitempty"`
}

// QueryRequest is the body of POST /v1/databases/{id}/query.
type QueryRequest struct {
	Filter      interface{} `json:"filter,omitempty"`
	StartCursor string      `json:"start_cursor,omitempty"`
	PageSize    int         `json:"page_size,omitempty"`
}

// QueryResponse is a page of database query results.
type QueryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// titleProp builds a title property value.
func titleProp(s string) Property {
	return Property{Title: []RichText{{Text: &TextContent{Content: s}}}}
}

// textProp builds a rich_text property value.
func textProp(s string) Property {
	if s == "" {
		return Property{RichText: []RichText{}}
	}
	return Property{RichText: []RichText{{Text: &TextContent{Content: s}}}}
}

// selectProp builds a select property value.
func selectProp(name string) Property {
	return Property{Select: &SelectOption{Name: name}}
}

// dateProp builds a date property value.
func dateProp(start string) Property {
	return Property{Date: &DateValue{Start: start}}
}

// numberProp builds a number property value.
func numberProp(n float64) Property {
	return Property{Number: &n}
}

// plainText flattens a rich text value to a plain string.
func plainText(spans []RichText) string {
	var out string
	for _, s := range spans {
		if s.PlainText != "" {
			out += s.PlainText
		} else if s.Text != nil {
			out += s.Text.Content
		}
	}
	return out
}
