// Command dittogrid browses a data grid catalog: it resolves paths, lists
// collections including special ones, counts children and exports subtrees.
package main

func main() {
	Execute()
}
