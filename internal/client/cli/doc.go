// Package cli implements the interactive realmkeeper terminal client.
//
// The REPL starts unauthenticated unless a stored session survives
// verification. User commands act with the user realm's token, admin
// commands with the admin realm's token; when the server rejects a token the
// realm is signed out and the user is sent back to register/login.
//
//	register      create an account and sign in
//	login         sign in as a user
//	adminlogin    sign in as the administrator
//	whoami        show the signed-in principals
//	avatar <path> upload a profile image
//	users [n]     list users (admin)
//	adduser       create a user (admin)
//	edituser <id> change a user's name, email or password (admin)
//	deluser <id>  delete a user (admin)
//	sweep [n]     retry cleanup of orphaned images (admin)
//	logout [admin] sign out of the user or admin realm
//	exit | quit   leave the program
package cli
