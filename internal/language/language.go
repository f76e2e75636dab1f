package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema loads SDL together with the standard prelude so documents can
// be validated against it.
func LoadSchema(name, source string) (*Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Validate runs the standard document validation rules. The returned error
// is an ErrorList when the document is invalid.
func Validate(schema *Schema, doc *QueryDocument) error {
	if errs := validator.ValidateWithRules(schema, doc, nil); len(errs) > 0 {
		return errs
	}
	return nil
}

// Errors flattens err into located errors: an ErrorList as is, a single
// Error, or any other error as a message without location.
func Errors(err error) ErrorList {
	if err == nil {
		return nil
	}
	var list ErrorList
	if errors.As(err, &list) {
		return list
	}
	var single *Error
	if errors.As(err, &single) {
		return ErrorList{single}
	}
	return ErrorList{gqlerror.Wrap(err)}
}
