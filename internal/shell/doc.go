// Package shell 提供面向 Library 的行式交互命令循环。
package shell
