package drop

import (
	"strconv"
	"strings"
)

// ContainerReference identifies one artifact inside a build container. It is
// immutable once parsed.
type ContainerReference struct {
	ContainerID int64
	RootName    string
}

// ParseContainerReference decodes a resource descriptor of the form
// "#/<containerId>/<artifactRootName...>". The root name may itself contain
// slashes; the remaining segments are rejoined verbatim.
func ParseContainerReference(raw string) (ContainerReference, error) {
	parts := strings.Split(raw, "/")
	if len(parts) < 3 {
		return ContainerReference{}, &InvalidReferenceError{Raw: raw, Reason: "expected #/<containerId>/<rootName>"}
	}
	if parts[0] != "#" {
		return ContainerReference{}, &InvalidReferenceError{Raw: raw, Reason: "descriptor must start with '#'"}
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id < 0 {
		return ContainerReference{}, &InvalidReferenceError{Raw: raw, Reason: "container id must be a non-negative integer"}
	}

	rootName := strings.Join(parts[2:], "/")
	if rootName == "" {
		return ContainerReference{}, &InvalidReferenceError{Raw: raw, Reason: "artifact root name is empty"}
	}

	return ContainerReference{ContainerID: id, RootName: rootName}, nil
}
