// Package repl implements the chrisql interactive loop.
//
// Each line read from the input is trimmed, parsed into a Command and
// executed against the database's record store. The resulting Outcome is
// printed and the loop continues until the user types exit (in any case) or
// the input ends. Commands other than exit are currently echoed back.
package repl
