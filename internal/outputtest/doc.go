// Package outputtest runs a fixed switching sequence over every configured
// output pin, so an installer can check the relay wiring by eye.
//
// The sequence is:
//  1. each pin in turn: low for 2s, then high for 2s
//  2. all pins low for 5s
//  3. all pins high
//  4. each pin in turn: low for 250ms, then high for 250ms
//  5. step 4 again in reverse order
//
// Wind monitor inputs are not touched.
package outputtest
