// Command hashpw prints the bcrypt hash of an admin password, in the form
// expected by the AUTH_ADMIN_PASSWORD_HASH environment variable.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ticketshield/citation-intake/internal/auth"
)

func main() {
	cost := flag.Int("cost", auth.DefaultBcryptCost, "bcrypt cost factor")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hashpw [-cost n] <password>")
		os.Exit(2)
	}

	hash, err := auth.HashPassword(flag.Arg(0), *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
