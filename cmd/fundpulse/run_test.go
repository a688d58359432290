package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	assert.Equal(t, "📊 <b>基金</b> & 指数", plainText("📊 &lt;b&gt;基金&lt;/b&gt; &amp; 指数"))
	assert.Equal(t, "标题\n正文", plainText("<b>标题</b>\n正文"))
}
