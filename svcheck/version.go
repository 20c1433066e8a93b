package svcheck

// Version is the current version of the go-archtools module
const Version = "0.3.0"
