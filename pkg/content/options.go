// Package content writes and reads table bodies of a preservation archive:
// one XML document per table, its XML schema, and large objects stored
// inline, beside the table, or in rotating external containers.
package content

import (
	"github.com/redbco/redb-archive/pkg/config"
)

// Options controls how cells are laid out in the archive.
type Options struct {
	// Large strings longer than this many bytes become large objects.
	StringInlineThreshold int64
	// Large binaries longer than this many bytes become large objects.
	BinaryInlineThreshold int64
	// ExternalLobs stores large objects in rotating external containers
	// instead of inside the main archive.
	ExternalLobs bool
	// ContainerBudget is the external container size in bytes, 0 for no limit.
	ContainerBudget int64
	// ContainerMaxObjects is the number of files per external container.
	ContainerMaxObjects int
	// DigestAlgorithm is MD5, SHA-1, SHA-256 or empty for no digests.
	DigestAlgorithm string
	LowerCaseDigest bool
	Pretty          bool
	Version         string
}

// OptionsFromConfig converts operator configuration.
func OptionsFromConfig(c config.Codec) Options {
	return Options{
		StringInlineThreshold: c.StringInlineThreshold,
		BinaryInlineThreshold: c.BinaryInlineThreshold,
		ExternalLobs:          c.ExternalLobs,
		ContainerBudget:       c.ContainerBudgetBytes(),
		ContainerMaxObjects:   c.ContainerMaxObjects,
		DigestAlgorithm:       c.DigestAlgorithm,
		LowerCaseDigest:       c.LowerCaseDigest(),
		Pretty:                c.Pretty,
		Version:               c.Version,
	}
}

// DefaultOptions returns the options of the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultCodec())
}

func (o Options) maxObjects() int {
	if o.ContainerMaxObjects < 1 {
		return 1
	}
	return o.ContainerMaxObjects
}
