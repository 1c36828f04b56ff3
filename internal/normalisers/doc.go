// Package normalisers maps raw connector records into canonical
// domain entities.
//
// All functions are pure: no state, no I/O, deterministic given
// identical inputs apart from the wall-clock normalisation timestamp
// stamped on Product, which is an observability field and not part of
// identity. Malformed input yields an error wrapping
// domain.ErrMalformedRecord.
package normalisers
