package models

import (
	"errors"
	"fmt"
)

// ValidationError signale une entrée malformée. Jamais réessayée.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError construit une ValidationError formatée
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// BusinessLogicError signale une entrée valide qui viole une règle métier.
// L'appelant décide s'il réessaie après avoir résolu le conflit.
type BusinessLogicError struct {
	Message string
}

func (e *BusinessLogicError) Error() string {
	return e.Message
}

// NewBusinessLogicError construit une BusinessLogicError formatée
func NewBusinessLogicError(format string, args ...interface{}) *BusinessLogicError {
	return &BusinessLogicError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError signale une entité absente ou qui n'est pas dans l'état attendu
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError construit une NotFoundError pour une ressource
func NewNotFoundError(resource string, format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: fmt.Sprintf(format, args...)}
}

// SelectionError signale un pool sans poids positif : un défaut de contenu,
// pas une condition transitoire. Propagé comme échec dur.
type SelectionError struct {
	Message string
}

func (e *SelectionError) Error() string {
	return e.Message
}

// NewSelectionError construit une SelectionError formatée
func NewSelectionError(format string, args ...interface{}) *SelectionError {
	return &SelectionError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation vérifie si l'erreur est une erreur de validation
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsBusinessLogic vérifie si l'erreur est une violation de règle métier
func IsBusinessLogic(err error) bool {
	var target *BusinessLogicError
	return errors.As(err, &target)
}

// IsNotFound vérifie si l'erreur est une absence d'entité
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsSelection vérifie si l'erreur est un échec de sélection pondérée
func IsSelection(err error) bool {
	var target *SelectionError
	return errors.As(err, &target)
}
