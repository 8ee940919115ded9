/*
Package bindgen generates bindings that expose a native engine API to a
script runtime and to a managed runtime.

The input is a set of package manifests, each listing modules whose
headers have been parsed into symbol-tree documents by an external
front end. The output is, per package, one native interop pair and
per-module script and managed source files.

# Architecture pipeline (for developers)

Each element in the pipeline has distinct sub-packages that do a specific part. These are then "glued" together in the [Run] function.
 1. [config]: Parse the optional 'bindgen.toml' generator configuration
 2. [manifest] and [loader]: Read package and module manifests and load dependencies depth-first
 3. [symtree] and [ingest]: Bind declared classes, enums and constants to the symbol trees of their headers
 4. [converter]: Classify native types into the binding [model]
 5. [binder]: Pair properties, mark inherited interface functions, synthesize constructors and apply rules
 6. [scriptgen] and [managedgen]: Write both binding sets into memory; [binder/binderio] commits them at once
*/
package bindgen
