// Command reviewflow runs the review workflows from the terminal:
// criteria generation, best-review selection, and title/summary
// generation.
package main

func main() {
	Execute()
}
