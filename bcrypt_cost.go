//go:build !race

package orgauth

func passwordHashCost() int {
	return 14
}
