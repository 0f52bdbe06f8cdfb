package main

import (
	"fmt"
	"time"
)

//go:noinline
func spin() {
	for {
		time.Sleep(time.Hour)
	}
}

func main() {
	fmt.Println("ready")
	spin()
}
