package pkgfile

import "errors"

// Open failures. Section read failures wrap ErrCorruptSection.
var (
	ErrNoLoader             = errors.New("pkgfile: cannot open file")
	ErrMalformedTag         = errors.New("pkgfile: malformed package tag")
	ErrVersionTooOld        = errors.New("pkgfile: file version too old")
	ErrVersionTooNew        = errors.New("pkgfile: file version too new")
	ErrCustomVersionMissing = errors.New("pkgfile: custom version missing")
	ErrCustomVersionInvalid = errors.New("pkgfile: custom version invalid")
	ErrCorruptSection       = errors.New("pkgfile: corrupt section")
)

// OpenResult classifies the outcome of Open.
type OpenResult int

const (
	Success OpenResult = iota
	NoLoader
	MalformedTag
	VersionTooOld
	VersionTooNew
	CustomVersionMissing
	CustomVersionInvalid
)

var resultNames = [...]string{
	Success:              "Success",
	NoLoader:             "NoLoader",
	MalformedTag:         "MalformedTag",
	VersionTooOld:        "VersionTooOld",
	VersionTooNew:        "VersionTooNew",
	CustomVersionMissing: "CustomVersionMissing",
	CustomVersionInvalid: "CustomVersionInvalid",
}

func (r OpenResult) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return "Unknown"
	}
	return resultNames[r]
}

// ResultOf maps an error from Open to its OpenResult. Errors that are not
// open failures, including section corruption, map to MalformedTag.
func ResultOf(err error) OpenResult {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrNoLoader):
		return NoLoader
	case errors.Is(err, ErrVersionTooOld):
		return VersionTooOld
	case errors.Is(err, ErrVersionTooNew):
		return VersionTooNew
	case errors.Is(err, ErrCustomVersionMissing):
		return CustomVersionMissing
	case errors.Is(err, ErrCustomVersionInvalid):
		return CustomVersionInvalid
	default:
		return MalformedTag
	}
}

// IsRetryable reports whether a failed file may succeed once more custom
// versions are registered.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCustomVersionMissing)
}
