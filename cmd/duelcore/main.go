// duelcore runs deterministic card duels described by Lua scenarios.
package main

func main() {
	Execute()
}
