// Package aconfig provides the functional-options helper the broker and
// client option structs build on, generalizing the teacher's
// ManagerConfig/qos.Config value-struct-plus-defaults pattern to a single
// reusable Option[T] shape.
package aconfig

// Option mutates a configuration value of type T. Component packages
// define their own Option aliases (e.g. broker.Option = aconfig.Option[Options])
// and With* constructors returning one.
type Option[T any] func(*T)

// Apply runs every option against cfg in order and returns it.
func Apply[T any](cfg *T, opts ...Option[T]) *T {
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
