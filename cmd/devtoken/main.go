// Command devtoken prints an access token for local testing, signed with
// JWT_SECRET the way the identity provider signs real ones.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/middleware"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/utils"
)

func main() {
	_ = godotenv.Load()
	holder := flag.String("holder", "demo-customer", "holder id placed in the sub claim")
	role := flag.String("role", middleware.RoleCustomer, "CUSTOMER or PAYMENT")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	tok, err := utils.NewAccessToken(secret, *holder, *role, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tok.Token)
}
