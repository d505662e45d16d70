package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// MaxEmailLength is the longest address accepted by ValidateEmail.
const MaxEmailLength = 254
