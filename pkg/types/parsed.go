package types

import "errors"

// Language identifies the source language an analyzer handled
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangRuby       Language = "ruby"
	LangPython     Language = "python"
	LangUnknown    Language = "unknown"
)

// ClassType is the closed classification inferred for a class from file path
// conventions and naming suffixes. It is never user-declared.
type ClassType string

const (
	ClassModel      ClassType = "model"
	ClassController ClassType = "controller"
	ClassService    ClassType = "service"
	ClassJob        ClassType = "job"
	ClassMailer     ClassType = "mailer"
	ClassSerializer ClassType = "serializer"
	ClassMiddleware ClassType = "middleware"
	ClassComponent  ClassType = "component"
	ClassHook       ClassType = "hook"
	ClassContext    ClassType = "context"
	ClassStore      ClassType = "store"
	ClassUtil       ClassType = "util"
	ClassTest       ClassType = "test"
	ClassMigration  ClassType = "migration"
	ClassConcern    ClassType = "concern"
	ClassValidator  ClassType = "validator"
	ClassHelper     ClassType = "helper"
	ClassGeneric    ClassType = "class"
)

// ParsedFile is the uniform structural representation of one source file.
// Every analyzer emits this shape so downstream consumers never depend on the
// source language or the parsing strategy that produced it.
type ParsedFile struct {
	// Path is relative to the project root, forward-slash separated.
	Path     string
	Language Language

	Functions []FunctionDef
	Classes   []ClassDef
	Imports   []ImportStmt
}

// FunctionDef represents one function or method extracted from source
type FunctionDef struct {
	// Identification
	Name string
	// QualifiedName embeds the owning class for methods ("User.full_name")
	// so methods and free functions never collide in ID space.
	QualifiedName string
	ClassName     string // empty for free functions

	// Flags
	IsExport bool
	IsAsync  bool

	// Location
	StartLine int // 1-based
	EndLine   int

	// Calls lists de-duplicated callee names found in the function body,
	// already filtered against the language's keyword/builtin stoplist.
	Calls []string
}

// ClassDef represents one class, module, or component extracted from source
type ClassDef struct {
	// Identification
	Name      string
	ClassType ClassType

	// Relationships
	ParentClass  string // first parent only; empty when none
	Includes     []string
	Associations []Association
	Serializes   string // class name this serializer renders; by naming convention

	// Location
	StartLine int
	EndLine   int

	// Flags
	IsExport bool

	// Calls lists callee names found in the class body outside any method
	// (field initializers, class-level macros). For function components and
	// hooks it mirrors the function's call list. These become
	// component_calls edges.
	Calls []string
}

// AssocKind names a declarative association macro found in a class body
type AssocKind string

const (
	AssocBelongsTo           AssocKind = "belongs_to"
	AssocHasOne              AssocKind = "has_one"
	AssocHasMany             AssocKind = "has_many"
	AssocHasAndBelongsToMany AssocKind = "has_and_belongs_to_many"
)

// Association records one declarative association with the class-name guess
// derived from the snake_case target (singularized for collection kinds).
type Association struct {
	Kind        AssocKind
	TargetClass string
}

// ImportStmt represents one import/require statement
type ImportStmt struct {
	// Source is the module path exactly as written ("./lib/util", "react").
	Source string
	// Names lists imported symbols where the syntax exposes them.
	Names []string
	// IsRelative marks sources that resolve within the project tree.
	IsRelative bool
}

// Method returns true when the function is a method on a class
func (f *FunctionDef) Method() bool {
	return f.ClassName != ""
}

// Validate checks structural invariants on a parsed file
func (p *ParsedFile) Validate() error {
	if p.Path == "" {
		return errors.New("parsed file path is required")
	}
	for i := range p.Functions {
		if p.Functions[i].QualifiedName == "" {
			return errors.New("function qualified name is required")
		}
	}
	for i := range p.Classes {
		if p.Classes[i].Name == "" {
			return errors.New("class name is required")
		}
	}
	return nil
}
