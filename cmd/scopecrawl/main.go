// Command scopecrawl is a focused web crawler.
package main

import "github.com/BenjaminSRussell/scopecrawl/internal/cli"

func main() {
	cli.Execute()
}
