package main

import "track-downloader/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}
