package identity

import "errors"

var errBadKeyLength = errors.New("identity: decoded key has the wrong length")
