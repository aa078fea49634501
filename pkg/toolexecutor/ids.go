package toolexecutor

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const callIDLength = 12

// NewCallID returns a short random id correlating one invocation's transcript lines.
func NewCallID() string {
	id, err := gonanoid.New(callIDLength)
	if err != nil {
		return uuid.NewString()
	}
	return id
}
