// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// This is the RTL819x USB PHY power control run from another distro's init
// or by the host controller's service scripts.
package main

import (
	"fmt"
	"os"

	"github.com/platinasystems/log"
	"github.com/platinasystems/usbphy/cmd/usbphy"
)

func main() {
	c := usbphy.Command{}
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "-h", "-help", "--help", "help":
			fmt.Println("usage:", c.Usage())
			fmt.Print(c.Man(), "\n")
			return
		}
	}
	if err := c.Main(args...); err != nil {
		log.Print("err", c, ": ", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", c, err)
		os.Exit(1)
	}
}
