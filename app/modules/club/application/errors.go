package clubservice

import "errors"

var (
	// ErrNameRequired is returned when a club is created or renamed without a name.
	ErrNameRequired = errors.New("name is required")

	// ErrInvalidSlug is returned when a slug contains anything outside
	// lowercase letters, digits, and hyphens.
	ErrInvalidSlug = errors.New("slug must contain only lowercase letters, digits, and hyphens")

	// ErrInvalidTimezone is returned when the timezone is not a known IANA name.
	ErrInvalidTimezone = errors.New("unknown timezone")

	// ErrSlugImmutable is returned when a slug change is attempted after the
	// club has run a race. The slug namespaces broadcast topics and public
	// URLs, so it is frozen once race history exists.
	ErrSlugImmutable = errors.New("slug cannot be changed once a race exists")
)
