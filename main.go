package main

import "github.com/wenpm/bucketctl/cmd"

func main() {
	cmd.Execute()
}
