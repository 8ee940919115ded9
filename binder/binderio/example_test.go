package binderio_test

import (
	"fmt"

	"github.com/nativebind/bindgen/binder/binderio"
)

func ExampleCodeBuilder() {
	var cb binderio.CodeBuilder
	cb.Linef(`#include "Node.h"`)
	cb.Linef(``)
	cb.Comment("Scene graph node.\n\nOwns its children.", "/// ")
	cb.Open(`class NodeWrapper`)
	cb.Linef(`public:`)
	for i := range 3 {
		cb.Linef(`int value%v;`, i)
	}
	cb.Close(";")
	fmt.Print(cb.String())
	// Output:
	// #include "Node.h"
	//
	// /// Scene graph node.
	// ///
	// /// Owns its children.
	// class NodeWrapper
	// {
	//     public:
	//     int value0;
	//     int value1;
	//     int value2;
	// };
}
