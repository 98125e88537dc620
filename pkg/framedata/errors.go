package framedata

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Each concrete error type below matches one.
var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrMoveNotFound      = errors.New("move not found")
	ErrDataNotFound      = errors.New("data not found")
	ErrDataParse         = errors.New("data parse error")
	ErrDataIntegrity     = errors.New("data integrity error")
)

// ResourceKind names an on-disk resource the loader expects.
type ResourceKind string

const (
	ResourceFolder        ResourceKind = "folder"
	ResourceCharacterJSON ResourceKind = "character JSON"
	ResourceInfoJSON      ResourceKind = "info JSON"
	ResourceAliasesJSON   ResourceKind = "aliases JSON"
	ResourceImageJSON     ResourceKind = "image JSON"
	ResourceNicknameJSON  ResourceKind = "nickname JSON"
)

// CharacterNotFoundError reports a nickname that resolves to no character.
type CharacterNotFoundError struct {
	Nickname string
}

func (e *CharacterNotFoundError) Error() string {
	return fmt.Sprintf("character %q was not found", e.Nickname)
}

func (e *CharacterNotFoundError) Is(target error) bool { return target == ErrCharacterNotFound }

// MoveNotFoundError reports a query that matched no canonical name or alias.
// Query is the caller's raw text, not its normalized form.
type MoveNotFoundError struct {
	Character string
	Query     string
}

func (e *MoveNotFoundError) Error() string {
	return fmt.Sprintf("move %q was not found for %s", e.Query, e.Character)
}

func (e *MoveNotFoundError) Is(target error) bool { return target == ErrMoveNotFound }

// DataNotFoundError reports a missing on-disk resource.
type DataNotFoundError struct {
	Character string
	Kind      ResourceKind
	Path      string
}

func (e *DataNotFoundError) Error() string {
	if e.Character == "" {
		return fmt.Sprintf("missing %s %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: missing %s %s", e.Character, e.Kind, e.Path)
}

func (e *DataNotFoundError) Is(target error) bool { return target == ErrDataNotFound }

// DataParseError reports a malformed document or a schema mismatch.
type DataParseError struct {
	Path string
	Err  error
}

func (e *DataParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *DataParseError) Is(target error) bool { return target == ErrDataParse }

func (e *DataParseError) Unwrap() error { return e.Err }

// DataIntegrityError reports a load-time invariant violation.
type DataIntegrityError struct {
	Character string
	Reason    string
}

func (e *DataIntegrityError) Error() string {
	if e.Character == "" {
		return "integrity: " + e.Reason
	}
	return fmt.Sprintf("%s: integrity: %s", e.Character, e.Reason)
}

func (e *DataIntegrityError) Is(target error) bool { return target == ErrDataIntegrity }
