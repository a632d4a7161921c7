package job

import "errors"

var errUnspecified = errors.New("job failed without an error message")
