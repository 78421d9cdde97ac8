// Command posegate watches a camera for a held pose and triggers actions
// when the pose is stable.
package main

func main() {
	Execute()
}
