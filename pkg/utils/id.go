package utils

import "github.com/google/uuid"

// GenID returns a new authoritative message id.
func GenID() string {
	return "msg_" + uuid.NewString()
}

// GenTempID returns a server-generated provisional id for sends where the
// client did not supply one.
func GenTempID() string {
	return "tmp_" + uuid.NewString()
}
