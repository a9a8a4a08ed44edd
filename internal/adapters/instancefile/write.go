package instancefile

import (
	"bufio"
	"dropoff-route-service/internal/domain"
	"fmt"
	"io"
	"strings"
)

// WriteSolution writes route and dropoffs by name. Dropoffs are listed in
// order of first appearance on the route.
func WriteSolution(w io.Writer, in *domain.Instance, sol *domain.Solution) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, strings.Join(in.RouteNames(sol.Route), " "))

	order := sol.DropoffOrder()
	fmt.Fprintln(bw, len(order))
	for _, stop := range order {
		names := append([]string{in.LocationName(stop)}, in.RouteNames(domain.Route(sol.Dropoffs[stop]))...)
		fmt.Fprintln(bw, strings.Join(names, " "))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write solution %s: %w", in.Name, err)
	}
	return nil
}
