package main

import "github.com/killallgit/spectrogram-api/cmd"

// @title           Spectrogram API
// @version         1.0.0
// @description     Renders spectrogram images from audio share links
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/spectrogram-api
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
