// Package domain contains Leafstream's core business entities.
//
// These types are pure data: no I/O, no adapter imports. Every other
// package depends on domain; domain depends only on the standard
// library and uuid.
package domain
