package restclient

// Version is the library version reported in DefaultUserAgent.
const Version = "0.4.0"

// DefaultUserAgent is sent when neither the request nor the client sets a
// User-Agent.
const DefaultUserAgent = "sentinel-rest/" + Version
