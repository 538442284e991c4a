package main

import (
	"fmt"
	"os"
	"strings"

	"parley/internal/replies"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: replies <message text>")
		os.Exit(1)
	}

	text := strings.Join(os.Args[1:], " ")
	for _, s := range replies.ForMessage(text) {
		fmt.Println(s)
	}
}
