// Package codec frames and encrypts wire envelopes for relay topics.
// Envelope type selection and key resolution follow the key material
// bound to the topic in the key store.
package codec
