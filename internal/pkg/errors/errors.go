package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Upload rejection sentinels. These surface synchronously from document intake;
// when one of them is returned no Document row has been created.
var (
	// ErrUnsupportedType means the filename extension is not pdf, txt or docx.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrPageLimit means a PDF exceeded the 10 page ceiling.
	ErrPageLimit = errors.New("pdf exceeds page limit")
	// ErrExtraction means the file could not be read as its declared type.
	ErrExtraction = errors.New("text extraction failed")
	// ErrContentTooLong means the extracted text exceeds the length cap.
	ErrContentTooLong = errors.New("content too long")
	// ErrUnsupportedLanguage means the text failed the English heuristic.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrContentPolicy means the moderation service flagged the text.
	ErrContentPolicy = errors.New("content violates policy")
)
