// Command passhash prints the bcrypt hash to put in OPERATOR_PASSWORD_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-petr/roundup-savings/pkg/passpkg"
)

func main() {
	password := strings.Join(os.Args[1:], " ")

	if password == "" {
		reader := bufio.NewReader(os.Stdin)

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			log.Fatal().Err(err).Msg("cannot read password")
		}

		password = strings.TrimRight(line, "\r\n")
	}

	if len(password) < 8 {
		log.Fatal().Msg("password must be at least 8 characters long")
	}

	hash, err := passpkg.Hash(password)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot hash password")
	}

	fmt.Println(hash)
}
