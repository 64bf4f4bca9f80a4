package main

import "github.com/kendall-kelly/delivery-admin-api/cmd"

func main() {
	cmd.Execute()
}
