package main

import "github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd"

func main() {
	cmd.Execute()
}
