package main

import "retail-service/internal/app"

func main() {
	app.Run()
}
