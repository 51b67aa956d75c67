// Package audit records security-relevant actions to the append-only audit log.
package audit

// Action is an audit action type. Only the constants below are written.
type Action string

const (
	LoginSuccess    Action = "LOGIN_SUCCESS"
	LoginFailed     Action = "LOGIN_FAILED"
	Logout          Action = "LOGOUT"
	ViewDocList     Action = "VIEW_DOC_LIST"
	ViewDocument    Action = "VIEW_DOCUMENT"
	ViewSectionList Action = "VIEW_SECTION_LIST"
	ViewSection     Action = "VIEW_SECTION"
	UploadDocument  Action = "UPLOAD_DOCUMENT"
	UpdateDocument  Action = "UPDATE_DOCUMENT"
	DeleteDocument  Action = "DELETE_DOCUMENT"
	AdminCreateUser Action = "ADMIN_CREATE_USER"
	AdminUpdateUser Action = "ADMIN_UPDATE_USER"
	ToolSearch      Action = "TOOL_SEARCH"
)

var known = map[Action]struct{}{
	LoginSuccess:    {},
	LoginFailed:     {},
	Logout:          {},
	ViewDocList:     {},
	ViewDocument:    {},
	ViewSectionList: {},
	ViewSection:     {},
	UploadDocument:  {},
	UpdateDocument:  {},
	DeleteDocument:  {},
	AdminCreateUser: {},
	AdminUpdateUser: {},
	ToolSearch:      {},
}

// Valid reports whether a is part of the audit vocabulary.
func (a Action) Valid() bool {
	_, ok := known[a]
	return ok
}

// ParseAction returns the Action named s, or false if s is not one.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	return a, a.Valid()
}
