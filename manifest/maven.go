package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrUnresolvableCoordinate = errors.New("unresolvable maven coordinate")

// Coordinate is a parsed group:artifact:version[:classifier][@extension] name.
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	Extension  string
}

func ParseCoordinate(name string) (Coordinate, error) {
	parts := strings.Split(name, ":")
	if len(parts) < 3 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrUnresolvableCoordinate, name)
	}
	c := Coordinate{
		Group:     parts[0],
		Artifact:  parts[1],
		Version:   parts[2],
		Extension: "jar",
	}
	if len(parts) > 3 {
		c.Classifier = parts[3]
	}

	// the extension hangs off whichever segment comes last
	last := &c.Version
	if c.Classifier != "" {
		last = &c.Classifier
	}
	if v, ext, ok := strings.Cut(*last, "@"); ok {
		*last = v
		if ext != "" {
			c.Extension = ext
		}
	}
	if c.Group == "" || c.Artifact == "" || c.Version == "" {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrUnresolvableCoordinate, name)
	}
	return c, nil
}

// Key identifies a library regardless of version, so that a child manifest
// can replace the parent's copy.
func (c Coordinate) Key() string {
	if c.Classifier == "" {
		return c.Group + ":" + c.Artifact
	}
	return c.Group + ":" + c.Artifact + ":" + c.Classifier
}

func (c Coordinate) String() string {
	s := c.Group + ":" + c.Artifact + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	if c.Extension != "jar" {
		s += "@" + c.Extension
	}
	return s
}

func (c Coordinate) FileName() string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.Extension
}

// Path is the slash separated repository path of the artifact.
func (c Coordinate) Path() string {
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.Artifact, c.Version, c.FileName())
}

func (c Coordinate) WithClassifier(classifier string) Coordinate {
	c.Classifier = classifier
	return c
}

// LibraryKey is the shadowing key of a library name, falling back to the raw
// name when it is not a valid coordinate.
func LibraryKey(name string) string {
	c, err := ParseCoordinate(name)
	if err != nil {
		return name
	}
	return c.Key()
}
