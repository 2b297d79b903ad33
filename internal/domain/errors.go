package domain

import "errors"

var (
	// ErrForbidden is returned when a role or ownership check fails.
	ErrForbidden = errors.New("forbidden")
	// ErrQuizNotFound indicates the quiz document does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates the user document does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrSubmissionNotFound is returned when a student has no submission for a quiz.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrAlreadyPublished guards a second publish of a quiz or its results.
	ErrAlreadyPublished = errors.New("already published")
	// ErrResultsReleased closes a quiz to new submissions once its results are out.
	ErrResultsReleased = errors.New("results for this quiz are already out")
	// ErrAlreadySubmitted guards a second submission for the same quiz and student.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrIncompleteSubmission means the answer count differs from the question count.
	ErrIncompleteSubmission = errors.New("incomplete submission: send one answer per question, empty string to skip")
	// ErrResultsNotPublished hides score data from students until the teacher publishes it.
	ErrResultsNotPublished = errors.New("results not published yet")
	// ErrQuizNotPublished is returned when students try to use an unpublished quiz.
	ErrQuizNotPublished = errors.New("quiz not published")
	// ErrTooFar rejects a submission outside the quiz geofence.
	ErrTooFar = errors.New("too far from the quiz location")
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateCode is returned when a quiz code is already taken.
	ErrDuplicateCode = errors.New("quiz code already in use")
	// ErrEmailTaken is returned when a user email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials rejects a wrong current password.
	ErrInvalidCredentials = errors.New("current password is incorrect")
	// ErrUpstream wraps document store failures.
	ErrUpstream = errors.New("upstream failure")
)

var known = []error{
	ErrForbidden, ErrQuizNotFound, ErrUserNotFound, ErrSubmissionNotFound,
	ErrAlreadyPublished, ErrResultsReleased, ErrAlreadySubmitted, ErrIncompleteSubmission,
	ErrResultsNotPublished, ErrQuizNotPublished, ErrTooFar, ErrValidation,
	ErrDuplicateCode, ErrEmailTaken, ErrInvalidCredentials, ErrUpstream,
}

// Known reports whether err wraps one of the errors declared here.
func Known(err error) bool {
	for _, k := range known {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
