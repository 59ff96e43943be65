// Package common contains shared constants and sentinel errors used across
// catalogkeeper components.
package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token
// on protected requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authentication scheme prefix of AuthorizationHeaderName.
const BearerScheme = "Bearer"
