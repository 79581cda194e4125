package permit

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Scope is the part of a response that belongs to one work type. It is
// implemented only by InteriorScope, ExteriorScope and AdditionScope.
type Scope interface {
	WorkType() WorkType
	validate() error
}

// InteriorScope is the set of interior work selected for a project.
type InteriorScope struct {
	work []InteriorWork
}

// Interior builds an interior scope. Duplicates collapse.
func Interior(work ...InteriorWork) InteriorScope {
	return InteriorScope{work: dedupe(work)}
}

func (InteriorScope) WorkType() WorkType { return WorkInterior }

// Work returns a copy of the selected interior work.
func (s InteriorScope) Work() []InteriorWork { return append([]InteriorWork(nil), s.work...) }

// Has reports whether w was selected.
func (s InteriorScope) Has(w InteriorWork) bool { return contains(s.work, w) }

func (s InteriorScope) validate() error {
	if len(s.work) == 0 {
		return errors.New("interior scope needs at least one kind of work")
	}
	for _, w := range s.work {
		if !w.Valid() {
			return fmt.Errorf("unknown interior work %q", w)
		}
	}
	return nil
}

// ExteriorScope is the set of exterior work selected for a project.
type ExteriorScope struct {
	work []ExteriorWork
}

// Exterior builds an exterior scope. Duplicates collapse.
func Exterior(work ...ExteriorWork) ExteriorScope {
	return ExteriorScope{work: dedupe(work)}
}

func (ExteriorScope) WorkType() WorkType { return WorkExterior }

// Work returns a copy of the selected exterior work.
func (s ExteriorScope) Work() []ExteriorWork { return append([]ExteriorWork(nil), s.work...) }

// Has reports whether w was selected.
func (s ExteriorScope) Has(w ExteriorWork) bool { return contains(s.work, w) }

func (s ExteriorScope) validate() error {
	if len(s.work) == 0 {
		return errors.New("exterior scope needs at least one kind of work")
	}
	for _, w := range s.work {
		if !w.Valid() {
			return fmt.Errorf("unknown exterior work %q", w)
		}
	}
	return nil
}

// AdditionScope is the property addition selected for a project.
type AdditionScope struct {
	kind PropertyAddition
}

// Addition builds a property addition scope.
func Addition(kind PropertyAddition) AdditionScope {
	return AdditionScope{kind: kind}
}

func (AdditionScope) WorkType() WorkType { return WorkPropertyAdditions }

// Kind returns the selected addition.
func (s AdditionScope) Kind() PropertyAddition { return s.kind }

func (s AdditionScope) validate() error {
	if !s.kind.Valid() {
		return fmt.Errorf("unknown property addition %q", s.kind)
	}
	return nil
}

// Response is a validated questionnaire response. It carries at most one
// scope per work type, and the selected work types are exactly the scopes
// present. The zero value is empty and is never produced by NewResponse.
type Response struct {
	interior *InteriorScope
	exterior *ExteriorScope
	addition *AdditionScope
}

// NewResponse assembles a response from scopes. It fails when no scope is
// given, a work type is repeated, or a scope is empty or holds unknown values.
func NewResponse(scopes ...Scope) (Response, error) {
	if len(scopes) == 0 {
		return Response{}, errors.New("at least one work type is required")
	}
	var r Response
	for _, s := range scopes {
		if s == nil {
			return Response{}, errors.New("nil scope")
		}
		if err := s.validate(); err != nil {
			return Response{}, err
		}
		switch s := s.(type) {
		case InteriorScope:
			if r.interior != nil {
				return Response{}, errors.New("interior selected twice")
			}
			r.interior = &s
		case ExteriorScope:
			if r.exterior != nil {
				return Response{}, errors.New("exterior selected twice")
			}
			r.exterior = &s
		case AdditionScope:
			if r.addition != nil {
				return Response{}, errors.New("property_additions selected twice")
			}
			r.addition = &s
		}
	}
	return r, nil
}

// MustResponse is NewResponse for statically known scopes. It panics on error.
func MustResponse(scopes ...Scope) Response {
	r, err := NewResponse(scopes...)
	if err != nil {
		panic(err)
	}
	return r
}

// IsZero reports whether r holds no scope at all.
func (r Response) IsZero() bool {
	return r.interior == nil && r.exterior == nil && r.addition == nil
}

// WorkTypes returns the selected work types in display order.
func (r Response) WorkTypes() []WorkType {
	var out []WorkType
	if r.interior != nil {
		out = append(out, WorkInterior)
	}
	if r.exterior != nil {
		out = append(out, WorkExterior)
	}
	if r.addition != nil {
		out = append(out, WorkPropertyAdditions)
	}
	return out
}

func (r Response) Interior() (InteriorScope, bool) {
	if r.interior == nil {
		return InteriorScope{}, false
	}
	return *r.interior, true
}

func (r Response) Exterior() (ExteriorScope, bool) {
	if r.exterior == nil {
		return ExteriorScope{}, false
	}
	return *r.exterior, true
}

func (r Response) Addition() (PropertyAddition, bool) {
	if r.addition == nil {
		return "", false
	}
	return r.addition.kind, true
}

func (r Response) hasInterior(w InteriorWork) bool {
	return r.interior != nil && r.interior.Has(w)
}

func (r Response) hasExterior(w ExteriorWork) bool {
	return r.exterior != nil && r.exterior.Has(w)
}

// Payload returns the wire form of r.
func (r Response) Payload() Payload {
	p := Payload{WorkTypes: r.WorkTypes()}
	if r.interior != nil {
		p.InteriorWork = r.interior.Work()
	}
	if r.exterior != nil {
		p.ExteriorWork = r.exterior.Work()
	}
	if r.addition != nil {
		p.PropertyAddition = r.addition.kind
	}
	return p
}

func (r Response) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.Payload())
}

// UnmarshalJSON decodes the wire form and runs it through the same
// validation as Payload.Response.
func (r *Response) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Response{}
		return nil
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	resp, err := p.Response()
	if err != nil {
		return err
	}
	*r = resp
	return nil
}

func dedupe[T comparable](vals []T) []T {
	if len(vals) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(vals))
	out := make([]T, 0, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
