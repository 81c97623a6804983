package invoke

import "github.com/autodeployr/engine/pkg/imagetag"

// Container is the execution handle for one invocation attempt. It is never
// persisted; resolution produces a fresh handle every time, including after
// tag repair.
type Container struct {
	ImageTag     imagetag.ImageTag
	FunctionName string
}

func (c Container) functionID() string {
	if c.FunctionName != "" {
		return c.FunctionName
	}
	return c.ImageTag.Identity().FunctionName
}
