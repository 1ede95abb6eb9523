package request

import (
	"fmt"
	"net/http"
)

// Verb is the closed set of HTTP methods a storage command may use.
type Verb uint8

const (
	VerbGet Verb = iota + 1
	VerbPut
	VerbPost
	VerbDelete
	VerbHead
)

// Method maps v to its net/http method. Verbs outside the closed set are
// a programming error and panic.
func (v Verb) Method() string {
	switch v {
	case VerbGet:
		return http.MethodGet
	case VerbPut:
		return http.MethodPut
	case VerbPost:
		return http.MethodPost
	case VerbDelete:
		return http.MethodDelete
	case VerbHead:
		return http.MethodHead
	default:
		panic(fmt.Sprintf("request: unmapped verb %d", uint8(v)))
	}
}

func (v Verb) String() string {
	switch v {
	case VerbGet, VerbPut, VerbPost, VerbDelete, VerbHead:
		return v.Method()
	default:
		return fmt.Sprintf("Verb(%d)", uint8(v))
	}
}
