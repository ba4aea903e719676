// Package orders defines the order document model, its JSON codec, and the
// business validation rules applied during intake.
package orders
