package anchorsync

// Version is the release of the anchorsync library and CLI.
const Version = "0.3.0"
