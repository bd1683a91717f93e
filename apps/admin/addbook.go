package main

import (
	"context"
	"fmt"

	"github.com/trezcool/maktaba/core/book"
)

func (cli *commandLine) addBook(title, author string, count int, tags []string) error {
	nb := book.NewBook{
		Title:  title,
		Author: author,
		Count:  count,
		Tags:   tags,
	}
	if err := nb.Validate(cli.validate); err != nil {
		return err
	}

	bk, err := cli.bookSvc.CreateBook(context.Background(), nb)
	if err != nil {
		return err
	}
	fmt.Printf("book %q added (id=%s)\n", bk.Title, bk.ID)
	return nil
}
