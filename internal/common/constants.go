package common

// SponsorTokenHeaderName is the HTTP header that carries the sponsor bearer
// token on relayed submissions.
const SponsorTokenHeaderName = "Authorization"
