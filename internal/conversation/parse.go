package conversation

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedSubmission matches every *ParseError.
var ErrMalformedSubmission = errors.New("malformed submission")

// ParseError explains why text was not a "<link>, <views>" pair.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return "malformed submission: " + e.Reason
}

// Is lets errors.Is(err, ErrMalformedSubmission) match.
func (e *ParseError) Is(target error) bool { return target == ErrMalformedSubmission }

// Code is picked up by the handler summary as err_code.
func (e *ParseError) Code() string { return "malformed_submission" }

// Submission is a parsed "<link>, <views>" message.
type Submission struct {
	Link  string
	Views int64
}

// ParseSubmission splits text on commas into exactly two fields. The link
// must be non-empty after trimming and views must be a non-negative integer.
func ParseSubmission(text string) (Submission, error) {
	fields := strings.Split(text, ",")
	if len(fields) != 2 {
		return Submission{}, &ParseError{Input: text, Reason: "expected exactly two comma-separated fields"}
	}
	link := strings.TrimSpace(fields[0])
	if link == "" {
		return Submission{}, &ParseError{Input: text, Reason: "link is empty"}
	}
	views, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return Submission{}, &ParseError{Input: text, Reason: "views is not an integer"}
	}
	if views < 0 {
		return Submission{}, &ParseError{Input: text, Reason: "views is negative"}
	}
	return Submission{Link: link, Views: views}, nil
}
