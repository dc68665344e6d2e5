// Package cli implements the interactive carpool shell.
//
// The shell is a small read–eval–print loop over stdin. Commands:
//
//	login                        sign in (password is read without echo)
//	logout                       revoke the session and clear local tokens
//	status                       show who is signed in and the session state
//	get <path> [path...]         GET one or more endpoints concurrently
//	post|put|patch <path> <json> send a JSON body
//	delete <path>                DELETE an endpoint
//	help                         list commands
//	exit | quit                  leave the shell
//
// When the session expires (a token refresh failed) the shell prints the
// reason and takes the user back to the login prompt.
package cli
