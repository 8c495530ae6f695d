// Package services defines the error taxonomy shared by the pipeline
// services.
//
// Errors are tagged with sentinel markers (ErrTransient, ErrParse, ...) via
// Wrap so the caller at the unit-of-work boundary can classify the failure
// with errors.Is and decide whether to retry next cycle, mark the article
// failed, or give up on the item.
package services
