// Package config parses declarative command manifests and the clitmpl tool
// configuration.
//
// A manifest declares commands whose arguments and options are written as
// templates. It can be written in CUE or YAML:
//
//	name: "deployctl"
//	commands: [{
//		name: "deploy"
//		arguments: [{template: "<ENV>"}]
//		options: [{template: "-c|--count <NUM>", type: "int"}]
//	}]
//
// ManifestParser closes every source against the built-in #Manifest CUE
// schema, parses each template, and registers each command with pkg/cli to
// catch templates that parse but conflict. Problems are collected as
// ValidationErrors located at file, line and column. For a template error the
// column points at the offending token inside the string literal.
//
//	parser := config.NewManifestParser()
//	pm, err := parser.Parse(ctx, []string{"cli.yaml"})
//	if err != nil {
//	    return err
//	}
//	for _, e := range pm.Errors {
//	    fmt.Println(e)
//	}
//	specs := pm.Specs()
//
// Directories are loaded as one CUE package plus every YAML file in them
// that declares commands.
//
// ToolConfig holds the settings of the tool itself, read from .clitmpl.yaml.
package config
