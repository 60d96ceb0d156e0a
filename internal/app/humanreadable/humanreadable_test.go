package humanreadable

import (
	"fmt"
	"testing"
)

func ExampleIEC_poster() {
	// A typical w342 poster.
	fmt.Println(IEC(31337))
	// Output: 30.6 KiB
}

func ExampleIEC_page() {
	fmt.Println(IEC(1500000))
	// Output: 1.4 MiB
}

func ExampleSI() {
	fmt.Println(SI(1500000))
	// Output: 1.5 MB
}

func TestIEC(t *testing.T) {
	tables := []struct {
		x int64
		h string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{50000, "48.8 KiB"},
		{10 * 1024 * 1024, "10.0 MiB"},
		{1900000000, "1.8 GiB"},
		{2000000000000000000, "1.7 EiB"},
	}
	for _, table := range tables {
		output := IEC(table.x)
		if output != table.h {
			t.Errorf("IEC(%d) was incorrect, got: %s, want: %s", table.x, output, table.h)
		}
	}
}

func TestSI(t *testing.T) {
	tables := []struct {
		x int64
		h string
	}{
		{999, "999 B"},
		{1000, "1.0 kB"},
		{12351, "12.4 kB"},
		{15555555, "15.6 MB"},
		{19999999999999, "20.0 TB"},
		{2000000000000000000, "2.0 EB"},
	}
	for _, table := range tables {
		output := SI(table.x)
		if output != table.h {
			t.Errorf("SI(%d) was incorrect, got: %s, want: %s", table.x, output, table.h)
		}
	}
}
