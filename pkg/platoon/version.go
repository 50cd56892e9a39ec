package platoon

// Version is the client library version.
const Version = "0.1.0"

// UserAgent is sent with every request.
const UserAgent = "platoon-go/" + Version
