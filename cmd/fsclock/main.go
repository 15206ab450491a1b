// Command fsclock controls the fsclockd clock overlay.
package main

func main() {
	Execute()
}
